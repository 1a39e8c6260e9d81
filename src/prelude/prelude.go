// Package prelude embeds the standard SSL prelude unit prepended to every compilation unless
// --no-prelude is given. Its contents are opaque to the core compiler: a set of common stack
// instructions (dup/drop/swap/over/rot as permutations, arithmetic/logic as dunder sugar) that
// callers can rely on without redeclaring them.
package prelude

import _ "embed"

//go:embed prelude.ssl
var Source string
