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

package builder

import "github.com/cockroachdb/errors"

// ErrMissingObject marks a required spec field the builder could not find.
var ErrMissingObject = errors.New("missing required field")

// ErrCannotMount marks a user-supplied volume mount that collides with one
// of the operator's reserved mount paths.
var ErrCannotMount = errors.New("cannot mount reserved path")

func missingObject(path string) error {
	return errors.Wrapf(ErrMissingObject, "%s", path)
}

func cannotMount(path string) error {
	return errors.Wrapf(ErrCannotMount, "%s", path)
}
