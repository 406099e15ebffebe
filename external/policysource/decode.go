package policysource

import (
	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	yaml "github.com/goccy/go-yaml"
	"github.com/riskibarqy/faultline/internal/domain/faultpolicy"
)

type policyFormat string

const (
	formatJSON policyFormat = "json"
	formatYAML policyFormat = "yaml"
)

func decodePolicy(raw []byte, format policyFormat) (faultpolicy.Policy, error) {
	var policy faultpolicy.Policy

	switch format {
	case formatYAML:
		if err := yaml.Unmarshal(raw, &policy); err != nil {
			return faultpolicy.Policy{}, crerr.Wrap(err, "parse yaml policy")
		}
	default:
		if err := sonic.Unmarshal(raw, &policy); err != nil {
			return faultpolicy.Policy{}, crerr.Wrap(err, "parse json policy")
		}
	}

	if err := policy.Validate(); err != nil {
		return faultpolicy.Policy{}, crerr.Wrap(err, "validate policy")
	}

	return policy, nil
}
