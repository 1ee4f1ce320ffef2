// Package blob implements the material.Store on the local filesystem and on Aliyun OSS.
package blob

import (
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/material"
)

const (
	DriverLocal = "local"
	DriverOSS   = "oss"
)

// Open returns the store selected by the configured driver.
func Open(conf *core.Config) (material.Store, error) {
	switch conf.Blob.Driver {
	case DriverLocal, "":
		return NewLocalStore(conf.Blob.Dir)
	case DriverOSS:
		return NewOSSStore(conf.Blob)
	default:
		return nil, errors.Errorf("unknown blob driver %q", conf.Blob.Driver)
	}
}
