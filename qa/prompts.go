package qa

import (
	"fmt"
	"strings"

	"github.com/gamma-omg/docqa/docstore"
)

const noContextMarker = "No relevant context found in the documents."

const generalPrompt = `You are an AI assistant that answers questions based on the provided document context. Your role is to provide accurate, helpful, and well-structured answers using only the information from the given context. If the context doesn't contain enough information to answer the question, clearly state what information is missing. Always cite specific parts of the context that support your answer. Be concise but comprehensive in your responses.`

const factualPrompt = `You are an AI assistant specialized in factual question answering. Extract and present factual information from the provided context accurately. Focus on specific details, numbers, dates, names, and concrete information. If multiple facts are mentioned, organize them clearly. Always indicate which document or section the fact comes from.`

const analyticalPrompt = `You are an AI assistant specialized in analytical thinking. Analyze the provided context to identify patterns, relationships, implications, and deeper insights. Provide thoughtful analysis that goes beyond surface-level information. Consider different perspectives and potential implications of the information presented.`

const comparativePrompt = `You are an AI assistant specialized in comparative analysis. Compare and contrast different aspects, concepts, or information presented in the context. Identify similarities, differences, advantages, disadvantages, and relationships between different elements. Provide structured comparisons with clear points of analysis.`

func systemPrompt(category Category) string {
	switch category {
	case CategoryFactual:
		return factualPrompt
	case CategoryAnalytical:
		return analyticalPrompt
	case CategoryComparative:
		return comparativePrompt
	default:
		return generalPrompt
	}
}

func contextBlock(contexts []docstore.SearchResult) string {
	if len(contexts) == 0 {
		return noContextMarker
	}

	var sb strings.Builder
	for i, ctx := range contexts {
		fmt.Fprintf(&sb, "Document %d: %s\nSimilarity Score: %.3f\nContent:\n%s\n---\n",
			i+1, ctx.DocumentName, ctx.Score, ctx.Content)
	}

	return sb.String()
}

func userPrompt(question, context string) string {
	return fmt.Sprintf(`Question: %s

Context from documents:
%s

Please answer the question based on the provided context. If the context doesn't contain enough information to answer the question completely, please indicate what information is missing. Always cite which document(s) your answer is based on.`, question, context)
}
