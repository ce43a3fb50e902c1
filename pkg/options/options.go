package options

import (
	"fmt"
	"net"

	"github.com/spf13/pflag"
)

// IOptions is implemented by every reusable option struct in this package.
// Commands compose option structs, add their flags to the flag set, and
// validate them together after parsing.
type IOptions interface {
	// Validate checks the option values and returns every problem found.
	Validate() []error

	// AddFlags binds the options to the given flag set. The optional
	// prefixes allow one command to carry two instances of the same
	// option struct.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// ValidateAddress checks that addr is a host:port string a server can bind
// or a client can dial.
func ValidateAddress(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	return nil
}
