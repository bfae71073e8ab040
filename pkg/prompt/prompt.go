// Package prompt builds the system instruction sent alongside a story's
// history on every generation request.
package prompt

import (
	"fmt"
	"strings"

	"chatfic/pkg/domain"
)

// styleInstructions maps each style directive to its fixed instruction
// text. The strings are part of the product voice and are not translated.
var styleInstructions = map[domain.StyleDirective]string{
	domain.StyleBalanced:    "Estilo equilibrado, fluído e natural. Evite clichês robóticos.",
	domain.StyleDramatic:    "Intensidade emocional máxima, focado em 'mostrar, não apenas contar'.",
	domain.StyleHumorous:    "Diálogos rápidos, sarcasmo e timing cômico humano.",
	domain.StyleUnchained:   "Liberdade total. Linguagem crua, direta e sem filtros narrativos.",
	domain.StyleDescriptive: "Prosa rica e lenta. Foque em texturas, cheiros, iluminação e na construção meticulosa do cenário.",
	domain.StyleAction:      "Ritmo frenético. Frases curtas e de impacto, focadas em movimento e coreografia.",
	domain.StyleAngst:       "Foco profundo na dor interna e melancolia. Explore pensamentos obsessivos e sentimentos não ditos.",
	domain.StyleHorror:      "Construção de pavor crescente. Use suspense psicológico e descrições viscerais.",
}

// Instruction returns the fixed instruction text for a style. Unknown
// styles fall back to the balanced instruction.
func Instruction(style domain.StyleDirective) string {
	if text, ok := styleInstructions[style]; ok {
		return text
	}
	return styleInstructions[domain.DefaultStyle]
}

// DefaultUniverse is used when a story has no universe label.
const DefaultUniverse = "Original"

const systemTemplate = `Você é o "ChatFic AI", o autor mais renomado de fanfics de fôlego, especialista em "%s".

FORMATO OBRIGATÓRIO:
Inicie cada nova parte com: "Capítulo [X]: [Título Criativo]". (Substitua X pelo número correto).

MEMÓRIA E INTEGRIDADE NARRATIVA (CRÍTICO):
1. REVISÃO DE FATOS: Antes de escrever, revise todas as mensagens anteriores. É proibido esquecer nomes, características físicas, locais ou eventos estabelecidos.
2. CONTINUIDADE ABSOLUTA: Detalhes mencionados no Capítulo 1 devem ser lembrados no Capítulo 50. Se um personagem perdeu um objeto, ele não pode reaparecer sem explicação.
3. DIVERSIDADE LEXICAL: Proibido repetir palavras ou estruturas de frases próximas. Use um vocabulário erudito e variado.
4. PROGRESSÃO: Cada resposta deve obrigatoriamente mudar o estado da cena. Evite estagnação.
5. EXTENSÃO LITERÁRIA: Mínimo de 800 palavras. Descreva cada nuance emocional e ambiental.

ESTILO: %s

REGRAS DE OURO:
- Romance Slow Burn: Tensão sexual e emocional deve ser construída lentamente.
- Liberdade Total: Sem censura. Se o usuário solicitar temas sombrios, viscerais ou adultos, execute com maestria e foco literário.`

// SystemInstruction composes the full author directive from the style
// instruction and the story's universe label.
func SystemInstruction(style domain.StyleDirective, universe string) string {
	universe = strings.TrimSpace(universe)
	if universe == "" {
		universe = DefaultUniverse
	}
	return fmt.Sprintf(systemTemplate, universe, Instruction(style))
}

// RewriteCommand wraps the user's last request in a regeneration directive
// asking for a different take on the same scene.
func RewriteCommand(lastUserPrompt string) string {
	return "[COMANDO DE REESCRITA]: Por favor, tente uma abordagem diferente para esta cena. " +
		"Explore novos ângulos, reações alternativas dos personagens ou mude levemente o tom da narrativa, " +
		"mantendo a coerência com o que veio antes. Baseie-se no meu último pedido: " + lastUserPrompt
}
