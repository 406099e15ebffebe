package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/audit --output domain/audit --outpkg auditmock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name MetricsSource --dir ../usecase --output usecase --outpkg usecasemock --filename metrics_source_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name AlertSink --dir ../usecase --output usecase --outpkg usecasemock --filename alert_sink_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name PolicySource --dir ../usecase --output usecase --outpkg usecasemock --filename policy_source_mock.go
