package prompt

import "chatfic/pkg/domain"

// Ideas is the curated idea bank served read-only to the client.
var Ideas = []domain.PromptIdea{
	{
		Category:    "Romance / Angst",
		Title:       "O Único que Sobrou",
		Description: "Um herói e um vilão são os únicos sobreviventes de um apocalipse no universo deles.",
		Prompt:      "Escreva o primeiro capítulo de uma fanfic angustiante de [Universo]. Comece com 'Capítulo 1: O Eco do Fim'. [Personagem A] e [Personagem B] estão em meio aos escombros.",
	},
	{
		Category:    "Aventura",
		Title:       "A Rota Proibida",
		Description: "Uma expedição atravessa um território que todos os mapas do universo escolhido marcam como perdido.",
		Prompt:      "Escreva o primeiro capítulo de uma fanfic de aventura em [Universo]. Comece com 'Capítulo 1: Além da Última Fronteira'. [Personagem A] aceita guiar a expedição que ninguém mais quis liderar.",
	},
	{
		Category:    "Mistério",
		Title:       "Cartas que Ninguém Enviou",
		Description: "Cartas antigas aparecem endereçadas a personagens que juram nunca tê-las escrito.",
		Prompt:      "Escreva o primeiro capítulo de uma fanfic de mistério em [Universo]. Comece com 'Capítulo 1: Remetente Desconhecido'. [Personagem A] encontra a primeira carta presa na porta.",
	},
}
