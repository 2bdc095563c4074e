package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"pokernight/internal/config"
	"pokernight/internal/model"
	"pokernight/internal/repo"
	"pokernight/internal/service/player"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newPlayersCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "players",
		Short: "List players and their balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := repo.InitDB(config.GlobalConfig.Database.DSN); err != nil {
				return err
			}
			players, err := player.NewService(repo.DB).List(cmd.Context())
			if err != nil {
				return err
			}
			return writePlayers(cmd.OutOrStdout(), players, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	return cmd
}

func writePlayers(w io.Writer, players []model.Player, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(players)
	}

	data := pterm.TableData{{"ID", "Name", "Balance", "Games"}}
	for _, p := range players {
		balance := fmt.Sprintf("%.2f", p.Balance)
		if p.Balance < 0 {
			balance = pterm.LightRed(balance)
		} else {
			balance = pterm.LightGreen(balance)
		}
		data = append(data, []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			balance,
			strconv.Itoa(p.GamesPlayed),
		})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
