package database

import (
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

// NewMockPool returns a pgxmock pool satisfying DBTX. SQL expectations are
// regular expressions and match in any order, since engines may run their
// queries concurrently. Call ExpectationsWereMet at the end of each test.
func NewMockPool() (pgxmock.PgxPoolIface, error) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		return nil, err
	}
	mock.MatchExpectationsInOrder(false)
	return mock, nil
}
