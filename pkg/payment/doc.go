// Package payment integrates with the card processor: fetching customers,
// minting SetupIntents for the payment page, and attaching collected payment
// methods as the customer default. Processor errors carry the processor's own
// type/code/message so the payment page can surface them verbatim.
package payment
