package database

import (
	"context"
	"net/url"
)

// Driver opens client connections to a database server
type Driver interface {
	// Connect establishes a client connection to address
	Connect(ctx context.Context, address string) (Client, error)
}

// Client is a connected database client
type Client interface {
	// Database resolves a named database handle
	Database(ctx context.Context, name string) (Database, error)

	// Disconnect releases the client connection
	Disconnect(ctx context.Context) error
}

// Database is a handle to a named database
type Database interface {
	// Collection resolves a named collection handle
	Collection(ctx context.Context, name string) (Collection, error)
}

// Collection is a handle to a named collection
type Collection interface {
	Name() string
}

// RedactAddress masks the password of a connection string so it can be logged
func RedactAddress(address string) string {
	u, err := url.Parse(address)
	if err != nil {
		return "<unparseable address>"
	}
	return u.Redacted()
}
