package mocks

//go:generate mockery --name EventStore --srcpkg github.com/sorters-club/sorters/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
