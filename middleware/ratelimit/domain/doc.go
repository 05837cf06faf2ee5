// Package domain define contratos e tipos de domínio para o controle de admissão
// das rotas de IA (rate limit por cliente + limite de concorrência).
//
// Este pacote não depende de net/http nem de implementações concretas.
package domain
