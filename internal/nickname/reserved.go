package nickname

// reservedWords are handles that can never be claimed, regardless of case.
// Mostly route fragments, role names, and values that read as sentinel
// strings in clients.
var reservedWords = map[string]struct{}{
	"admin":         {},
	"administrator": {},
	"root":          {},
	"system":        {},
	"user":          {},
	"users":         {},
	"api":           {},
	"www":           {},
	"ftp":           {},
	"mail":          {},
	"email":         {},
	"support":       {},
	"help":          {},
	"info":          {},
	"contact":       {},
	"about":         {},
	"profile":       {},
	"settings":      {},
	"account":       {},
	"login":         {},
	"register":      {},
	"signup":        {},
	"signin":        {},
	"logout":        {},
	"password":      {},
	"forgot":        {},
	"reset":         {},
	"test":          {},
	"demo":          {},
	"example":       {},
	"sample":        {},
	"null":          {},
	"undefined":     {},
	"anonymous":     {},
	"guest":         {},
	"public":        {},
	"private":       {},
}
