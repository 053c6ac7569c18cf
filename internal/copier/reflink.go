package copier

import (
	"errors"
	"fmt"
	"strings"
)

// Reflink selects the copy-on-write policy. The zero value is ReflinkAuto.
type Reflink int

const (
	// ReflinkAuto clones when the filesystem can and silently copies
	// otherwise.
	ReflinkAuto Reflink = iota
	// ReflinkAlways requires a clone; the copy fails if one is not possible.
	ReflinkAlways
	// ReflinkNever skips cloning entirely.
	ReflinkNever
)

// ErrInvalidReflink is returned for a reflink value other than always,
// auto or never.
var ErrInvalidReflink = errors.New("invalid reflink mode")

var reflinkNames = [...]string{
	ReflinkAuto:   "auto",
	ReflinkAlways: "always",
	ReflinkNever:  "never",
}

func (r Reflink) String() string {
	if r >= 0 && int(r) < len(reflinkNames) {
		return reflinkNames[r]
	}
	return "unknown"
}

// ParseReflink parses "always", "auto" or "never", ignoring case.
func ParseReflink(s string) (Reflink, error) {
	switch strings.ToLower(s) {
	case "always":
		return ReflinkAlways, nil
	case "auto":
		return ReflinkAuto, nil
	case "never":
		return ReflinkNever, nil
	}
	return 0, fmt.Errorf("%w: unexpected value for 'reflink': %q", ErrInvalidReflink, s)
}

// Set implements pflag.Value.
func (r *Reflink) Set(s string) error {
	v, err := ParseReflink(s)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Type implements pflag.Value.
func (*Reflink) Type() string { return "mode" }

// UnmarshalText lets the mode be decoded from config files.
func (r *Reflink) UnmarshalText(text []byte) error {
	return r.Set(string(text))
}

// MarshalText is the inverse of UnmarshalText.
func (r Reflink) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
