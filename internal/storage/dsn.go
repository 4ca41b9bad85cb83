package storage

import (
	"fmt"
	"net/url"
	"strings"
)

// ConnParams describes a server connection. The password comes from the
// secret store, never from the config file.
type ConnParams struct {
	Host     string
	Port     int
	Database string
	Username string
	SSLMode  string
}

// PostgresDSN builds a lib/pq key/value connection string.
func PostgresDSN(p ConnParams, password string) string {
	port := p.Port
	if port == 0 {
		port = 5432
	}
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, port, p.Username, quoteDSNValue(password), p.Database, sslMode,
	)
}

// MySQLDSN builds a go-sql-driver/mysql connection string.
func MySQLDSN(p ConnParams, password string) string {
	port := p.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?charset=utf8mb4
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4",
		p.Username, password, p.Host, port, p.Database,
	)
	if p.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

// MongoURI builds a mongodb:// URI from host parameters, or returns uri
// with any password placeholder filled in.
func MongoURI(uri string, p ConnParams, password string) string {
	if uri != "" {
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", url.QueryEscape(password))
			uri = strings.ReplaceAll(uri, "<db_password>", url.QueryEscape(password))
		}
		return uri
	}
	port := p.Port
	if port == 0 {
		port = 27017
	}
	if p.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d",
			url.QueryEscape(p.Username), url.QueryEscape(password), p.Host, port)
	}
	return fmt.Sprintf("mongodb://%s:%d", p.Host, port)
}

func quoteDSNValue(v string) string {
	if v == "" || strings.ContainsAny(v, ` '\`) {
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
	}
	return v
}
