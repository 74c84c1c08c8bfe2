// Package util holds CLI-side helpers: connection URL parsing, environment
// fallbacks and the normalize-options file loader.
package util

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/uvilor/dbm-merge/internal/model"
)

const (
	defaultPostgresPort = 5432
	defaultMariaDBPort  = 3306
)

// ParseRef parses a connection URL of the form
//
//	{postgres|mariadb}://user[:pass]@host[:port]/database?schema=NAME[&ssl=true]
//
// into a connection ref. schemaFlag, when non-empty, overrides the schema
// query parameter. A ref without a schema is rejected.
func ParseRef(raw, schemaFlag string) (model.ConnRef, error) {
	var ref model.ConnRef

	parsed, err := url.Parse(raw)
	if err != nil {
		return ref, model.NewConfigError("invalid connection URL %q: %v", raw, err)
	}

	switch parsed.Scheme {
	case "postgres":
		ref.Kind = model.KindPostgres
		ref.Port = defaultPostgresPort
	case "mariadb":
		ref.Kind = model.KindMariaDB
		ref.Port = defaultMariaDBPort
	default:
		return ref, model.NewConfigError("unsupported protocol %q", parsed.Scheme)
	}

	ref.Host = parsed.Hostname()
	if ref.Host == "" {
		return ref, model.NewConfigError("connection URL %q has no host", raw)
	}
	if portStr := parsed.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return ref, model.NewConfigError("invalid port %q", portStr)
		}
		ref.Port = port
	}

	ref.Database = strings.TrimPrefix(parsed.Path, "/")
	if ref.Database == "" {
		return ref, model.NewConfigError("connection URL %q has no database", raw)
	}

	if user := parsed.User; user != nil {
		ref.User = user.Username()
		ref.Password, _ = user.Password()
	}

	query := parsed.Query()
	ref.Schema = schemaFlag
	if ref.Schema == "" {
		ref.Schema = query.Get("schema")
	}
	if ref.Schema == "" {
		return ref, model.NewConfigError("schema is required: pass --schema or a ?schema= query parameter")
	}
	ref.SSL = strings.EqualFold(query.Get("ssl"), "true")

	return ref, nil
}
