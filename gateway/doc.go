// Package gateway monta a aplicação HTTP do serviço de code review.
//
// Build só compõe middlewares e rotas; não abre listener. A ordem é fixa:
//
//	request id -> access log -> recover -> métricas -> CORS -> JSON -> rotas
//
// CORS roda antes de qualquer handler que responda, então até os erros de corpo
// (400/413/415) saem com os headers de CORS para origens permitidas.
package gateway
