// Package infra implementa os contratos de ai/domain:
//
//   - CompletionClient: API de chat completions compatível com OpenAI (Gemini, OpenAI, locais)
//   - RedisReviewCache / MemoryReviewCache: cache de revisões por conteúdo
package infra
