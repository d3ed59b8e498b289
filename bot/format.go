package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dicewager/models"
	"dicewager/service"
)

// FormatBalance formats a balance amount with thousand separators
func FormatBalance(balance int64) string {
	if balance < 0 {
		return "-" + FormatBalance(-balance)
	}

	str := fmt.Sprintf("%d", balance)
	n := len(str)
	if n <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}
	return result.String()
}

// FormatDiscordTimestamp formats a time as a Discord timestamp that displays in user's local timezone.
// Format types: "d" = short date, "f" = short date/time, "R" = relative time.
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}

func mention(accountID int64) string {
	return fmt.Sprintf("<@%d>", accountID)
}

// FormatWagerLine summarizes a wager on one line
func FormatWagerLine(w *models.Wager) string {
	opponent := "open"
	if w.OpponentID != nil {
		opponent = mention(*w.OpponentID)
	}
	return fmt.Sprintf("`%s` %s vs %s, stake **%s**, %s (%d/%d rolled)",
		w.ID, mention(w.CreatorID), opponent, FormatBalance(w.Stake),
		strings.ReplaceAll(string(w.Status), "_", " "), w.CreatorRolls, w.OpponentRolls)
}

// FormatOutcome describes a settled wager
func FormatOutcome(w *models.Wager) string {
	o := w.Outcome
	if o == nil {
		return ""
	}
	if o.IsTie() {
		return fmt.Sprintf("It's a tie at %d! Both stakes of **%s** were refunded.", w.CreatorScore, FormatBalance(w.Stake))
	}
	return fmt.Sprintf("%s wins %d to %d and receives **%s** (fees: %s inviter, %s project).",
		mention(*o.WinnerID), max(w.CreatorScore, w.OpponentScore), min(w.CreatorScore, w.OpponentScore),
		FormatBalance(o.WinnerPayout), FormatBalance(o.InviterFee), FormatBalance(o.ProjectFee))
}

// FormatRoll describes one die throw and what happens next
func FormatRoll(result *models.RollResult) string {
	session := result.Session
	msg := fmt.Sprintf("🎲 You rolled **%d** (%d/%d, total %d).", result.Value, session.DiceThrown, models.RollsPerPlayer, session.Total)

	w := result.Wager
	switch {
	case result.Settled:
		return msg + "\n" + FormatOutcome(w)
	case w.Status == models.WagerStatusResolving:
		return msg + "\nBoth players are done. The payout is being finalized."
	case session.Complete && !w.HasOpponent():
		return msg + "\nYour dice are in. Waiting for an opponent to join."
	case session.Complete:
		return msg + "\nYour dice are in. Waiting for your opponent to roll."
	default:
		return msg
	}
}

// FormatHistoryPage renders one page of game history
func FormatHistoryPage(accountID int64, page *models.HistoryPage) string {
	if len(page.Entries) == 0 {
		return "No games found."
	}

	var sb strings.Builder
	for _, e := range page.Entries {
		switch {
		case e.Status == models.WagerStatusCancelled:
			fmt.Fprintf(&sb, "%s `%s` cancelled, stake %s refunded\n",
				FormatDiscordTimestamp(e.RecordedAt, "d"), e.WagerID, FormatBalance(e.Stake))
		case e.WinnerID == nil:
			fmt.Fprintf(&sb, "%s `%s` tie %d to %d, stake %s\n",
				FormatDiscordTimestamp(e.RecordedAt, "d"), e.WagerID, e.CreatorScore, e.OpponentScore, FormatBalance(e.Stake))
		case *e.WinnerID == accountID:
			fmt.Fprintf(&sb, "%s `%s` **won** %d to %d, +%s\n",
				FormatDiscordTimestamp(e.RecordedAt, "d"), e.WagerID, max(e.CreatorScore, e.OpponentScore),
				min(e.CreatorScore, e.OpponentScore), FormatBalance(e.WinAmount-e.Stake))
		default:
			fmt.Fprintf(&sb, "%s `%s` lost %d to %d, -%s\n",
				FormatDiscordTimestamp(e.RecordedAt, "d"), e.WagerID, min(e.CreatorScore, e.OpponentScore),
				max(e.CreatorScore, e.OpponentScore), FormatBalance(e.Stake))
		}
	}

	page1 := page.Offset/max(page.Limit, 1) + 1
	fmt.Fprintf(&sb, "Page %d", page1)
	if page.HasMore {
		fmt.Fprintf(&sb, ", more with `/history page:%d`", page1+1)
	}
	return sb.String()
}

// FormatInviteStats renders the invite summary of an account
func FormatInviteStats(stats *models.InviteStats) string {
	return fmt.Sprintf("Your invite code: **%s**\nPlayers invited: %d\nInvite earnings: **%s**",
		stats.InviteCode, stats.InviteeCount, FormatBalance(stats.InviteEarnings))
}

// FormatTransfer renders a bridge transfer
func FormatTransfer(t *models.Transfer) string {
	switch {
	case t.Direction == models.TransferDirectionDeposit && t.Status == models.TransferStatusPending:
		return fmt.Sprintf("Deposit `%s` received. Your balance is credited once the transaction is confirmed.", t.ID)
	case t.Direction == models.TransferDirectionWithdraw && t.Status == models.TransferStatusPending:
		return fmt.Sprintf("Withdrawal `%s` of **%s** requested (%s token base units). Your balance is debited once the tokens are sent.",
			t.ID, FormatBalance(t.Amount), t.TokenAmount.String())
	default:
		return fmt.Sprintf("Transfer `%s` is %s.", t.ID, t.Status)
	}
}

// FormatStakeRule describes the accepted stakes, e.g. "a multiple of 100 between 100 and 1,000"
func FormatStakeRule(rules service.WagerRules) string {
	bounds := fmt.Sprintf("between %s and %s", FormatBalance(rules.MinStake), FormatBalance(rules.MaxStake))
	if rules.StakeUnit <= 1 {
		return bounds
	}
	return fmt.Sprintf("a multiple of %s %s", FormatBalance(rules.StakeUnit), bounds)
}

// FormatTransferList renders the recent transfers of an account, newest first
func FormatTransferList(transfers []*models.Transfer) string {
	if len(transfers) == 0 {
		return "You have no deposits or withdrawals yet."
	}

	var sb strings.Builder
	sb.WriteString("**Recent transfers**\n")
	for _, t := range transfers {
		fmt.Fprintf(&sb, "`%s` %s **%s** %s %s", t.ID, t.Direction, FormatBalance(t.Amount), t.Status,
			FormatDiscordTimestamp(t.CreatedAt, "R"))
		if t.FailureReason != nil {
			fmt.Fprintf(&sb, " (%s)", *t.FailureReason)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatExchangeRate renders the current bridge rate
func FormatExchangeRate(rate decimal.Decimal) string {
	return fmt.Sprintf("1 game unit = **%s** tokens\n100 game units = **%s** tokens", rate.String(), rate.Mul(decimal.NewFromInt(100)).String())
}
