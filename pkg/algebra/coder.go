// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package algebra

import (
	"context"
	"fmt"

	"github.com/leseb/prediction-runner/pkg/provider"
)

// Coder is the encode/decode pair registered for a TypeCustom field. Python
// dispatches custom coders by descriptor class identity; Go has no runtime
// class identity to key on, so dispatch is by the name an input struct's
// cog:"coder=<name>" tag spells out.
type Coder interface {
	// Decode converts a raw JSON-decoded value (map[string]any, []any, or a
	// scalar) into the predictor's custom Go representation.
	Decode(raw any) (any, error)
	// Encode converts a predictor's custom Go value back into a
	// JSON-marshalable representation.
	Encode(v any) (any, error)
}

// CoderDescriptor identifies a registered Coder implementation within a
// FieldType. Name matches the registration key used with Coders.
type CoderDescriptor struct {
	Name string
}

// Coders is the process-global registry of Coder implementations. A
// predictor package blank-imports (or directly calls Register on) a coder
// implementation package to activate it; a FieldType referencing an
// unregistered coder fails predictor construction (pkg/predictor.BuildInfo),
// matching spec.md's "CUSTOM without a matching coder fails predictor
// construction".
var Coders = provider.NewRegistry[Coder]("coder")

// LookupCoder resolves a CoderDescriptor to its registered Coder, or an
// error if no coder was registered under that name. params is forwarded to
// the factory for coders that need construction-time configuration (most
// don't and ignore it).
func LookupCoder(ctx context.Context, d *CoderDescriptor, params map[string]string) (Coder, error) {
	if d == nil {
		return nil, fmt.Errorf("algebra: custom field has no coder descriptor")
	}
	return Coders.New(ctx, d.Name, params)
}
