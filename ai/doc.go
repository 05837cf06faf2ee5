// Package ai monta o sub-router montado em /ai pelo gateway.
//
//	POST /get-review   {"code": "..."}  -> 200 text/plain com a revisão
//	GET  /get-review?code=...           -> idem, para testes manuais
//
// Todas as rotas passam pelo controle de admissão (ratelimit) antes de chamar o modelo.
package ai
