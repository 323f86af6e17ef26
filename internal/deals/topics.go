package deals

const (
	TopicDealCreated     = "deal.created"
	TopicDealClaimed     = "deal.claimed"
	TopicVoucherRedeemed = "voucher.redeemed"
)

// Partition key = deal_id, supaya semua event 1 deal maintain urutan.
func PartitionKey(dealID string) []byte { return []byte(dealID) }
