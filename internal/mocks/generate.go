package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Fetcher --dir ../domain/standingsource --output domain/standingsource --outpkg standingsourcemock --filename fetcher_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/importrun --output domain/importrun --outpkg importrunmock --filename repository_mock.go
