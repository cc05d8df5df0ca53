package sales

const (
	TopicTransactionSettled = "till.transaction.settled"
	TopicStockPending       = "till.stock.pending"
	TopicStockReconciled    = "till.stock.reconciled"
)

// Partition key = transaction id, supaya event satu transaksi tetap berurutan.
func PartitionKey(transactionID string) []byte { return []byte(transactionID) }
