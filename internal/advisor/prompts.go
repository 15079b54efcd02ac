package advisor

import (
	"fmt"
	"strings"
)

// SystemInstruction frames every answer-synthesis request.
const SystemInstruction = "You are a finance expert assistant who gives accurate, useful information based on current financial data."

// Irrelevant is the reply the filter prompt asks for when a fragment does not help.
const Irrelevant = "IRRELEVANT"

// BuildFilterPrompt asks the model to clean up fragment or reject it for topic.
func BuildFilterPrompt(fragment, topic string) string {
	return fmt.Sprintf(`Analyze the following financial text fragment and decide whether it is relevant and useful for answering questions about: %s

FRAGMENT:
%s

INSTRUCTIONS:
- If the fragment is relevant, improve it by removing redundant or irrelevant information
- If the fragment is not relevant, reply with exactly "%s"
- Keep key financial information (numbers, dates, company names, etc.)
- Make the text clearer and more concise

RESULT:`, topic, fragment, Irrelevant)
}

// BuildAnswerPrompt grounds the answer to question in fragments.
func BuildAnswerPrompt(question string, fragments []string) string {
	return fmt.Sprintf(`Based on the following relevant financial information, answer the user's question clearly and precisely.

RELEVANT FINANCIAL INFORMATION:
%s

USER QUESTION:
%s

INSTRUCTIONS:
- Answer only from the information provided
- If the information is not enough to answer fully, say so clearly
- Give a structured answer that is easy to follow
- Include specific figures when relevant
- Keep a professional but approachable tone

ANSWER:`, strings.Join(fragments, "\n\n"), question)
}
