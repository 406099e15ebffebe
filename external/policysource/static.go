package policysource

import (
	"context"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/faultline/internal/domain/faultpolicy"
)

// StaticSource serves one fixed policy. Default for dev and tests.
type StaticSource struct {
	policy faultpolicy.Policy
}

func NewStaticSource(policy faultpolicy.Policy) (*StaticSource, error) {
	if err := policy.Validate(); err != nil {
		return nil, crerr.Wrap(err, "static policy")
	}
	return &StaticSource{policy: policy}, nil
}

func (s *StaticSource) Load(_ context.Context) (faultpolicy.Policy, error) {
	return s.policy, nil
}

// Watch blocks until the context ends; a static policy never changes.
func (s *StaticSource) Watch(ctx context.Context, _ func(faultpolicy.Policy)) error {
	<-ctx.Done()
	return ctx.Err()
}
