// Package ratelimit fornece o middleware net/http de controle de admissão das rotas de IA.
//
// Camadas:
//
//   - domain: contratos e tipos (sem net/http)
//   - application: Guard, a decisão allowed / rate_limited / saturated
//   - infra: token bucket, semáforo e destinos de estatística (memória, Redis, Prometheus)
//   - ratelimit (este pacote): extração de chave + tradução da decisão para status/headers
//
// Fluxo:
//
//  1. Extrai a chave do cliente (header / X-Forwarded-For / RemoteAddr)
//  2. Pede a decisão ao Guard
//  3. rate_limited responde 429 com Retry-After; saturated responde 503
//  4. allowed chama o próximo handler e libera a vaga ao final
package ratelimit
