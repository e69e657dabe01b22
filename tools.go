//go:build tools

package changeset

import (
	_ "github.com/maxbrunsfeld/counterfeiter/v6"
)
