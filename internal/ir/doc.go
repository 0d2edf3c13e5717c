// Package ir provides the closed value representation used to serialize
// doranet data units.
//
// This package is the trust boundary of the module. All other internal
// packages import ir; ir imports nothing internal. Bytes read back from a
// store or database are only ever turned into values through Decode.
//
// Key design constraints:
//   - The set of reconstructable types is closed: Str, Int, Bool, Bytes,
//     Tuple and Set. Adding a type is a code change to the decoder switch.
//   - NO float types and NO null anywhere - use Int for numbers
//   - One canonical encoding per logical value (MarshalCanonical); Decode
//     rejects any payload that is not in that form
//   - Decoding never calls into user code, never reflects on arbitrary
//     types, never touches the filesystem
package ir
