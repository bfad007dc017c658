package database

import (
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"wasgate/pkg/logger"
)

// NewDatabase cria uma nova conexão com o banco de dados PostgreSQL
func NewDatabase(dsn string, debug bool, log logger.Logger) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))

	db := bun.NewDB(sqldb, pgdialect.New())

	// Habilitar logging de queries se necessário
	if debug {
		db.AddQueryHook(logger.NewBunQueryHook(log))
	}

	// Configurar pool de conexões
	sqldb.SetMaxOpenConns(25)
	sqldb.SetMaxIdleConns(25)

	// Testar conexão
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
