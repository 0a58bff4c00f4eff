package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	userAgent     = "segreq/1.0"
	connections   = 8
	segmentLength = 1024 * 1024
	proxyMethod   = ProxyMethodTunnel
)

var stateDB = filepath.Join(xdg.DataHome, configFileName, "state.db")
