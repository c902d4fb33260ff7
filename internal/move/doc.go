// Package move provides the data model shared by every combo package.
//
// This package contains value types only. All other internal packages
// import move; move imports nothing internal.
//
// Key design constraints:
//   - Delays are integer milliseconds (int64), never floats or time.Duration
//   - Event and Definition values are immutable once built
//   - Symbols are NFC-normalized at every boundary (see NormalizeSymbol)
//   - Entry ordering uses the logical seq counter, never wall-clock time
package move
