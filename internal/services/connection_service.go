package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
)

// ConnectionParams describe a PostgreSQL server to probe.
type ConnectionParams struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// ConnectionResult is the outcome of a probe; Error carries the driver's message.
type ConnectionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// DSN builds the connection URL, escaping credentials.
func (p ConnectionParams) DSN() string {
	port := p.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   fmt.Sprintf("%s:%d", p.Host, port),
		Path:   "/" + p.Database,
	}
	return u.String()
}

// TestConnection opens a one-off connection and runs SELECT 1 so a bad
// backend is reported before it is saved.
func TestConnection(ctx context.Context, p ConnectionParams) ConnectionResult {
	if p.Host == "" || p.Database == "" {
		return ConnectionResult{Error: "host and database are required"}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, p.DSN())
	if err != nil {
		return ConnectionResult{Error: err.Error()}
	}
	defer conn.Close(ctx)

	var result int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return ConnectionResult{Error: err.Error()}
	}
	return ConnectionResult{Success: true}
}
