package sync

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lwedwards3/dhp-sync/pkg/model"
)

const (
	memberSubject = "DHP Vacation Patrol Update"
	eodSubject    = "DHP End of Day Vacation Patrol Report"
)

// SendMemberEmails delivers one update per flagged request. Each send
// appends a timestamp to the request's audit trail and clears the flag,
// so a completed-transition or new asset produces exactly one email.
func (e *Engine) SendMemberEmails(requests []*model.Request) (int, error) {
	sent := 0
	for _, req := range requests {
		if !req.SendEmail {
			continue
		}
		body, err := e.tmpl.MemberBody(req)
		if err != nil {
			return sent, err
		}
		var to []string
		if e.opts.EmailMembers && req.EmailAddress != "" {
			to = []string{req.EmailAddress}
		}
		if err := e.notifier.Send(to, e.opts.MemberBCC, memberSubject, body); err != nil {
			return sent, fmt.Errorf("could not send update for %s: %w", req.Address, err)
		}
		req.RecordEmail(e.now())
		sent++
		e.log.Info("member update sent",
			zap.String("address", req.Address),
			zap.String("due_date", req.DueDate))
	}
	return sent, nil
}

// SendEndOfDayReport mails the operational summary when the archive phase
// classified any of yesterday's tasks. A day with nothing completed and
// nothing missed produces no report.
func (e *Engine) SendEndOfDayReport(rep *DayReport) (bool, error) {
	if rep == nil || len(rep.Completed)+len(rep.Incomplete) == 0 {
		return false, nil
	}
	reportDate := truncateDate(e.now()).AddDate(0, 0, -1).Format(model.DateLayout)
	body, err := e.tmpl.EndOfDayBody(reportDate, rep.Completed, rep.Incomplete, rep.Scheduled)
	if err != nil {
		return false, err
	}
	if err := e.notifier.Send(e.opts.EODRecipients, nil, eodSubject, body); err != nil {
		return false, fmt.Errorf("could not send end-of-day report: %w", err)
	}
	e.log.Info("end-of-day report sent",
		zap.Int("completed", len(rep.Completed)),
		zap.Int("incomplete", len(rep.Incomplete)))
	return true, nil
}
