package models

const (
	DatasetSource = "morocco_tourism_dataset"

	MetaSource              = "source"
	MetaCategory            = "category"
	MetaOriginalInstruction = "original_instruction"

	InstructionLabel = "Instruction:"
	InputLabel       = "Input:"
	OutputLabel      = "Output:"
	CategoryLabel    = "Category:"

	// TruncationArtifact is the half-written word the generator leaves behind when
	// it runs into the token limit
	TruncationArtifact = "Marrak"

	ContextSeparator = "\n\n"
)

// user facing messages, never include internal error text
const (
	UserMessageInitializing = "Initializing Morocco Tourism Chatbot..."
	UserMessageWelcome      = "Salam! Welcome to the Morocco Tourism Chatbot! Ask me anything about traveling in Morocco."
	UserMessageInitFailed   = "Failed to initialize the chatbot. Please check your setup."
	UserMessageQueryFailed  = "Error processing your query."
	UserMessageEmptyQuery   = "Please type a question about traveling in Morocco."
	UserMessageNoSources    = "*No specific sources found.*"
)

var (
	PromptTemplate = `You are an AI assistant specializing in Morocco tourism.
Use the provided context to answer the user's question concisely and coherently. Avoid repetition or adding information not found in the context.

Context: {context}

Question: {question}

Provide a clear and helpful response:
`
)
