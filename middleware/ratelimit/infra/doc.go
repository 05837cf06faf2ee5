// Package infra contém implementações concretas para os contratos do pacote domain.
//
//   - BucketStore: token bucket por chave usando golang.org/x/time/rate
//   - ChanPool: semáforo para o limite de chamadas simultâneas ao modelo
//   - MemoryStatsStore, RedisStatsStore, PrometheusStatsStore: destinos das estatísticas
package infra
