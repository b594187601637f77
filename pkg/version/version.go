/*
Copyright 2021 The Cockroach Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package version parses and totally orders the CRD schema versions of the
// form "v<N>" that the XlineCluster CRD carries.
package version

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrInvalidVersion is returned when a version string does not match v<N>.
var ErrInvalidVersion = errors.New("invalid version")

// SchemaVersion is a parsed "v<N>" CRD schema version.
type SchemaVersion struct {
	raw string
	n   uint64
}

// Parse parses a string of the form "v<N>", where N is a non-negative
// decimal integer.
func Parse(s string) (SchemaVersion, error) {
	trimmed := strings.TrimPrefix(s, "v")
	if trimmed == s {
		return SchemaVersion{}, errors.Wrapf(ErrInvalidVersion, "%q: missing 'v' prefix", s)
	}
	n, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return SchemaVersion{}, errors.Wrapf(ErrInvalidVersion, "%q", s)
	}
	return SchemaVersion{raw: s, n: n}, nil
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(s string) SchemaVersion {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the original "v<N>" form.
func (v SchemaVersion) String() string {
	return v.raw
}

// Compare returns -1, 0 or 1 as v is less than, equal to, or greater than
// other. This is the single comparison every other predicate derives from.
func (v SchemaVersion) Compare(other SchemaVersion) int {
	switch {
	case v.n < other.n:
		return -1
	case v.n > other.n:
		return 1
	default:
		return 0
	}
}

// Less reports whether v is strictly less than other.
func (v SchemaVersion) Less(other SchemaVersion) bool {
	return v.Compare(other) < 0
}

// Greater reports whether v is strictly greater than other.
func (v SchemaVersion) Greater(other SchemaVersion) bool {
	return v.Compare(other) > 0
}

// Equal reports whether v and other parse to the same integer.
func (v SchemaVersion) Equal(other SchemaVersion) bool {
	return v.Compare(other) == 0
}
