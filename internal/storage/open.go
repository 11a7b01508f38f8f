package storage

import "context"

// Open returns the PostgreSQL store when dsn is set and the bbolt file at
// path otherwise.
func Open(ctx context.Context, path, dsn string) (Store, error) {
	if dsn != "" {
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := OpenBolt(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}
