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

// Package kube holds small, dependency-light helpers shared by the
// resource and crd packages: an apply-patch wrapper and a
// backoff-driven condition poller.
package kube

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Apply performs a server-side apply of obj, declaring fieldManager as the
// owner of every field the caller set. Unlike ctrl.CreateOrUpdate this
// never reads the object back before writing: obj already is the desired
// state, and the API server computes the merge against whatever the
// field manager last applied.
func Apply(ctx context.Context, cl client.Client, obj client.Object, fieldManager string) error {
	return cl.Patch(ctx, obj, client.Apply,
		client.FieldOwner(fieldManager),
		client.ForceOwnership,
	)
}

// ConditionFn reports whether the awaited condition now holds. A false
// result with a nil error means "not yet" and triggers another attempt.
type ConditionFn func(ctx context.Context) (done bool, err error)

// WaitForCondition polls fn with exponential backoff until it reports
// done, returns an error, or timeout elapses.
func WaitForCondition(ctx context.Context, timeout time.Duration, fn ConditionFn) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = timeout

	return backoff.Retry(func() error {
		done, err := fn(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !done {
			return errConditionNotMet
		}
		return nil
	}, b)
}

var errConditionNotMet = conditionNotMetError{}

type conditionNotMetError struct{}

func (conditionNotMetError) Error() string { return "condition not yet met" }
