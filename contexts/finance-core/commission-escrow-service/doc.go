// Package commissionescrowservice holds merchant stakes in a yield vault and
// settles distributor commissions out of them.
//
// A merchant publishes a contract and stakes into the vault. Distributors
// report orders, the merchant confirms or disputes them, and confirmed orders
// yield a one-shot ticket the distributor claims against the stake. Orders
// left unresolved past their grace period can be slashed by anyone, and
// accrued vault yield is harvested between the platform and the merchant.
package commissionescrowservice
