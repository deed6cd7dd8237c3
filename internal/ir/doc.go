// Package ir provides the shared value types for blockql.
//
// This package contains type definitions and the canonical JSON encoder
// only. All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - ColumnRef is immutable once created from a catalog entry
//   - JSON tags follow the saved-query wire format (camelCase blockData)
//   - Serialized block graphs use canonical JSON so equal graphs produce
//     byte-identical blockData
package ir
