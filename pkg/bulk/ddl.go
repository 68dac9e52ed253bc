package bulk

import (
	"context"
	"fmt"

	"dataflow/internal/model"
	"dataflow/internal/storage/postgres"
)

// CreateTableSQL renders CREATE TABLE IF NOT EXISTS for T. Each column takes
// the first wire type its field's host type maps to; with identityPK an
// integer key becomes GENERATED BY DEFAULT AS IDENTITY.
func CreateTableSQL[T any](identityPK bool, opts ...Option) (string, error) {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = model.NewRegistry()
	}
	m, err := model.Of[T](o.registry)
	if err != nil {
		return "", err
	}
	def, err := postgres.TableDefFromModel(m, identityPK)
	if err != nil {
		return "", err
	}
	return postgres.BuildCreateTableSQL(def)
}

// CreateTable executes CreateTableSQL on one connection from p.
func CreateTable[T any](ctx context.Context, p Provider, identityPK bool, opts ...Option) error {
	ddl, err := CreateTableSQL[T](identityPK, opts...)
	if err != nil {
		return err
	}
	conn, err := acquire(ctx, p)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("bulk: create table: %w", err)
	}
	return nil
}
