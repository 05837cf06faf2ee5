// Package domain define os tipos e contratos da revisão de código por IA.
//
// Não depende de net/http nem do provedor do modelo.
package domain
