package main

import (
	"github.com/hacobotdev/kart/internal/tui"
)

// ClientCmd connects to a running server as an interactive player.
type ClientCmd struct {
	Addr     string `kong:"default='localhost:42073',help='Server address'"`
	Username string `kong:"short='u',help='Username (prompted if omitted)'"`
}

func (c *ClientCmd) Run() error {
	return tui.Run(c.Addr, c.Username)
}
