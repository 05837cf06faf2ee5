// Package application contém o caso de uso de admissão das rotas de IA.
//
// Depende apenas do pacote domain e não conhece net/http.
// Ex.: Guard.Admit(ctx, key) retorna uma Decision (allowed / rate_limited / saturated).
package application
