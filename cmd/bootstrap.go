package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
)

const bootstrapTimeout = 15 * time.Second

// ensureDatabaseExists 目标库不存在时经由 postgres 维护库创建它；已存在则什么都不做
func ensureDatabaseExists(ctx context.Context, dsn string) error {
	ctx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	defer cancel()

	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("解析DSN失败: %w", err)
	}
	target := connCfg.Database
	if target == "" || target == "postgres" {
		return nil
	}
	connCfg.Database = "postgres"

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return fmt.Errorf("连接维护库失败: %w", err)
	}
	defer conn.Close(context.Background())

	var one int
	err = conn.QueryRow(ctx, "SELECT 1 FROM pg_database WHERE datname = $1", target).Scan(&one)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("查询数据库 %s 失败: %w", target, err)
	}
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{target}.Sanitize()); err != nil {
		return fmt.Errorf("创建数据库 %s 失败: %w", target, err)
	}
	return nil
}
