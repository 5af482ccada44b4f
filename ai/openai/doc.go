// Package openai implements ai.AIProvider against OpenAI-compatible
// endpoints (OpenAI itself, Ollama, vLLM, LocalAI) through langchaingo.
//
// Embedding and chat may live on different hosts:
//
//	cfg := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434"), // /v1 is appended
//	    ai.WithChatHost("https://api.openai.com/v1"),
//	    ai.WithChatModel("gpt-4o-mini"),
//	    ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	)
//	provider, err := openai.NewProvider(cfg)
//
// Text sent to either endpoint is stripped of control characters first.
package openai
