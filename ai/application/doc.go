// Package application contém o caso de uso de revisão: validação da entrada,
// cache por conteúdo e montagem do prompt.
package application
