package offline

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.BrazilianPortuguese

	message.SetString(lang, "offline.title", "Sem conexão")
	message.SetString(lang, "offline.heading", "Você está offline")
	message.SetString(lang, "offline.message", "Você está offline e este conteúdo ainda não está disponível.")
	message.SetString(lang, "offline.features_heading", "Você ainda pode:")
	message.SetString(lang, "offline.retry", "Tentar novamente")
	message.SetString(lang, "offline.feature.meetings", "Rever reuniões abertas recentemente")
	message.SetString(lang, "offline.feature.notes", "Ler e editar notas em cache")
	message.SetString(lang, "offline.feature.templates", "Navegar pelos modelos salvos")
}
