// Package i18n holds the two interface string tables and the fixed
// generation failure messages inserted into story threads.
package i18n

import "chatfic/pkg/domain"

// translations maps every interface string key per supported language.
var translations = map[domain.Language]map[string]string{
	domain.LangPT: {
		"settings":          "Configurações",
		"theme":             "Tema",
		"light":             "Claro",
		"dark":              "Escuro",
		"lang":              "Idioma",
		"account":           "Conta",
		"login":             "Entrar",
		"signup":            "Cadastrar",
		"logout":            "Sair",
		"fandom_fidelity":   "Fidelidade ao Fandom",
		"fandom_desc":       "A IA agirá como especialista no universo escolhido.",
		"new_story":         "Nova Fanfic",
		"history":           "Histórico Recente",
		"community":         "Comunidade",
		"writing":           "IA está escrevendo...",
		"placeholder":       "O que acontece a seguir no capítulo?",
		"title":             "Título da sua obra...",
		"universe":          "Universo (ex: Marvel, One Piece)",
		"save_pdf":          "Salvar como PDF",
		"save_markdown":     "Salvar como Markdown",
		"publish_community": "Publicar na Comunidade",
		"published_success": "Sua história foi publicada com sucesso!",
		"exporting":         "Exportando...",
		"menu":              "Opções da História",
		"read_more":         "Ler Fanfic",
		"font_family":       "Fonte do Chat",
		"font_size":         "Tamanho do Texto",
		"font_sans":         "Moderna",
		"font_serif":        "Clássica",
		"font_mono":         "Focada",
		"delete_chat":       "Apagar Chat",
		"delete_confirm":    "Tem certeza que deseja apagar esta história para sempre?",
		"delete_action":     "Sim, apagar",
		"cancel":            "Cancelar",
		"copied":            "Copiado!",
	},
	domain.LangEN: {
		"settings":          "Settings",
		"theme":             "Theme",
		"light":             "Light",
		"dark":              "Dark",
		"lang":              "Language",
		"account":           "Account",
		"login":             "Login",
		"signup":            "Sign Up",
		"logout":            "Logout",
		"fandom_fidelity":   "Fandom Fidelity",
		"fandom_desc":       "AI will act as an expert in the chosen universe.",
		"new_story":         "New Fanfic",
		"history":           "Recent History",
		"community":         "Community",
		"writing":           "AI is writing...",
		"placeholder":       "What happens next in the chapter?",
		"title":             "Story title...",
		"universe":          "Universe (e.g. Marvel, One Piece)",
		"save_pdf":          "Save as PDF",
		"save_markdown":     "Save as Markdown",
		"publish_community": "Publish to Community",
		"published_success": "Your story has been published!",
		"exporting":         "Exporting...",
		"menu":              "Story Options",
		"read_more":         "Read Fanfic",
		"font_family":       "Chat Font",
		"font_size":         "Text Size",
		"font_sans":         "Modern",
		"font_serif":        "Classic",
		"font_mono":         "Focused",
		"delete_chat":       "Delete Chat",
		"delete_confirm":    "Are you sure you want to delete this story forever?",
		"delete_action":     "Yes, delete",
		"cancel":            "Cancel",
		"copied":            "Copied!",
	},
}

// Strings returns the full table for a language, falling back to
// Portuguese for unknown languages.
func Strings(lang domain.Language) map[string]string {
	if table, ok := translations[lang]; ok {
		return table
	}
	return translations[domain.LangPT]
}

// Generation failure messages. These are inserted into the thread as model
// turns, so a failed request stays visible inside the story itself.
var (
	emptyGeneration = map[domain.Language]string{
		domain.LangPT: "Erro ao gerar resposta.",
		domain.LangEN: "Could not generate a response.",
	}
	missingCredential = map[domain.Language]string{
		domain.LangPT: "A chave de acesso da IA está ausente ou inválida. Verifique a configuração e tente novamente.",
		domain.LangEN: "The AI access key is missing or invalid. Check the configuration and try again.",
	}
	rateLimited = map[domain.Language]string{
		domain.LangPT: "A IA recebeu pedidos demais. Aguarde alguns instantes antes de continuar o capítulo.",
		domain.LangEN: "The AI received too many requests. Wait a moment before continuing the chapter.",
	}
	generationFailed = map[domain.Language]string{
		domain.LangPT: "Ocorreu um erro na IA. Verifique sua conexão ou tente novamente em instantes.",
		domain.LangEN: "The AI ran into an error. Check your connection or try again shortly.",
	}
)

func pick(table map[domain.Language]string, lang domain.Language) string {
	if msg, ok := table[lang]; ok {
		return msg
	}
	return table[domain.LangPT]
}

// EmptyGeneration is the substitute for an empty or missing generated text.
func EmptyGeneration(lang domain.Language) string { return pick(emptyGeneration, lang) }

// MissingCredential is shown for authorization failures against the AI backend.
func MissingCredential(lang domain.Language) string { return pick(missingCredential, lang) }

// RateLimited is shown when the AI backend rejects the request for quota.
func RateLimited(lang domain.Language) string { return pick(rateLimited, lang) }

// GenerationFailed is the generic connectivity failure message.
func GenerationFailed(lang domain.Language) string { return pick(generationFailed, lang) }
