// Package profit keeps a ledger of trading profits across two accounts and
// derives everything else from it.
//
// The core functionalities include:
//   - Ledger Management: recording funded profits and Account A and Account B
//     transactions, each with the exchange rate locked at the time it was
//     recorded.
//   - Allocation: splitting funded profits and Account B withdrawals across
//     savings buckets, with a reviewable staging step for funded profits.
//   - Recalculation: a pure engine folding the ledger into balances, bucket
//     totals, balance series, the Account A milestone and goal progress.
//   - Goals: short-term goals funded by priority and a long-term goal that can
//     be restarted with a higher target once achieved.
//   - Coordination: a Coordinator serializing changes, keeping them undoable
//     for a short window and saving them in the background.
//   - Data Persistence: encoding and decoding the whole state as a single JSON
//     document.
//
// This package serves as the foundational logic for the `pm` command-line
// tool.
package profit
