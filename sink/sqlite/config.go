package sqlite

import (
	"strings"
)

// Config of the [Storage]. Every method panics on invalid input.
type Config struct {
	file    string
	durable bool
}

type ConfigFunc = func(c *Config)

// File sets the path of the database file. The special value ":memory:" keeps the database in
// memory.
func (c *Config) File(file string) {
	file = strings.TrimSpace(file)
	if file == "" {
		panic("file can't be blank")
	}
	if strings.Contains(file, "?") {
		panic("file can't contain ?")
	}
	c.file = file
}

// Durable makes every transaction synced to disk. By default, WAL mode with normal sync is used,
// which may lose the last transactions on power loss.
func (c *Config) Durable(durable bool) {
	c.durable = durable
}
