// geo/geo.go
// Package geo resolves a client IP to an ISO country code using a local
// MaxMind GeoLite2 database. Enrichment is optional: a nil *DB is a valid
// resolver that always returns "".
package geo

import (
	"errors"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

var ErrInvalidIP = errors.New("geo: invalid IP address")

// DB wraps a MaxMind database reader.
type DB struct {
	reader *maxminddb.Reader
}

// Open opens a GeoLite2 Country (or City) database file.
func Open(path string) (*DB, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	return &DB{reader: reader}, nil
}

// Close closes the underlying reader. Safe on a nil DB.
func (db *DB) Close() error {
	if db == nil || db.reader == nil {
		return nil
	}
	return db.reader.Close()
}

// countryRecord matches the GeoLite2 country layout.
type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// CountryCode returns the ISO 3166-1 alpha-2 code for the given IP, or ""
// when the DB is not loaded, the IP is private/unknown, or lookup fails.
// Enrichment is advisory, so lookup errors degrade to "" rather than
// propagate.
func (db *DB) CountryCode(ipStr string) string {
	if db == nil || db.reader == nil {
		return ""
	}

	// RemoteAddr often arrives as host:port.
	if host, _, err := net.SplitHostPort(ipStr); err == nil {
		ipStr = host
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}

	var rec countryRecord
	if err := db.reader.Lookup(ip, &rec); err != nil {
		return ""
	}
	return rec.Country.ISOCode
}
