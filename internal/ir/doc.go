// Package ir holds the serializable rule-base representation shared by the
// compiler, the CLI and the store.
//
// All other internal packages may import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Specs are plain data: no behaviour, no pointers into the fuzzy package
//   - All JSON tags use snake_case
//   - Numbers are float64 and must be finite; canonical JSON rejects NaN and Inf
//   - Content hashes are computed only over MarshalCanonical output
package ir
