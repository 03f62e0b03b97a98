package sig

import "encoding/base64"

// symbolPrefix is shared by every exported entry point so a host can
// recognize generated symbols when scanning a loaded library.
const symbolPrefix = "arrowudf_"

// Standard base64 uses '+' and '/', which are not legal in a linker symbol.
// '$' and '_' stand in for them; padding is dropped for the same reason.
var symbolEncoding = base64.NewEncoding(
	"ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789$_",
).WithPadding(base64.NoPadding)

// ExportSymbol derives the exported symbol name for a canonical signature
// string. The derivation is deterministic, so a host process can locate a
// specific overload without a separate symbol table.
func ExportSymbol(signature string) string {
	return symbolPrefix + symbolEncoding.EncodeToString([]byte(signature))
}
