package app

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"vibeguard/internal/storage"
)

// History prints executed transactions, newest first.
func (a *App) History(opts HistoryOptions) error {
	items, err := a.historyStore().Load(storage.HistoryQuery{
		UserAddress: opts.UserAddress,
		Limit:       opts.Limit,
	})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(os.Stdout, "no history found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tUser\tToken\tTx Hash\tSource")

	for _, item := range items {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			time.UnixMilli(item.Timestamp).UTC().Format(time.RFC3339),
			item.UserAddress,
			item.TokenAddress,
			item.TxHash,
			item.Source,
		)
	}

	writer.Flush()
	return nil
}
