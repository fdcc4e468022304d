package i18n

var enUSMessages = map[Code]string{
	"UNKNOWN":              "An unexpected error occurred.",
	"NOT_FOUND":            "{{if .resource}}The {{.resource}} was not found.{{else}}Not found.{{end}}",
	"PHASE_VIOLATION":      "That action is not available right now.{{if .reason}} {{.reason}}{{end}}",
	"TURN_VIOLATION":       "It is not your turn.",
	"PERMISSION_VIOLATION": "You are not allowed to do that.{{if .reason}} {{.reason}}{{end}}",
	"VALIDATION_ERROR":     "{{if .reason}}{{.reason}}{{else}}The request is invalid.{{end}}",
	"POOL_EXHAUSTED":       "There are no prompts left to draw.",
	"CONCURRENCY_CONFLICT": "Someone else acted at the same time. Please try again.",
	"UNAUTHENTICATED":      "Please sign in or join the game first.",
	"TOKEN_INVALID":        "Your player session is invalid. Please join again.",
	"TOKEN_EXPIRED":        "Your player session has expired. Please join again.",
	"SESSION_CODE_TAKEN":   "Could not allocate a game code. Please try again.",
	"RATE_LIMITED":         "Too many requests. Slow down a little.",
}

var ptBRMessages = map[Code]string{
	"UNKNOWN":              "Ocorreu um erro inesperado.",
	"NOT_FOUND":            "Não encontrado.",
	"PHASE_VIOLATION":      "Essa ação não está disponível agora.",
	"TURN_VIOLATION":       "Não é a sua vez.",
	"PERMISSION_VIOLATION": "Você não tem permissão para isso.",
	"VALIDATION_ERROR":     "{{if .reason}}{{.reason}}{{else}}A requisição é inválida.{{end}}",
	"POOL_EXHAUSTED":       "Não há mais cartas para comprar.",
	"CONCURRENCY_CONFLICT": "Outra pessoa agiu ao mesmo tempo. Tente novamente.",
	"UNAUTHENTICATED":      "Entre ou participe do jogo primeiro.",
	"TOKEN_INVALID":        "Sua sessão de jogador é inválida. Entre novamente.",
	"TOKEN_EXPIRED":        "Sua sessão de jogador expirou. Entre novamente.",
	"SESSION_CODE_TAKEN":   "Não foi possível gerar um código de jogo. Tente novamente.",
	"RATE_LIMITED":         "Muitas requisições. Vá com calma.",
}
