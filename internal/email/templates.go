package email

import (
	"context"
	"fmt"
	"time"
)

const dateLayout = "Jan 2, 2006"

func (s *Service) SendNotification(ctx context.Context, to, name, title, message, category string) error {
	body := fmt.Sprintf(`Hi %s,

%s

- GymFlow Team`, name, message)

	return s.enqueue(ctx, Job{To: to, Name: name, Subject: title, Body: body, Type: category})
}

// SendMembershipCard goes out when staff confirm a subscription.
func (s *Service) SendMembershipCard(ctx context.Context, to, name, planName string, subscriptionID int, start, end time.Time) error {
	subject := "Your GymFlow membership is active"
	body := fmt.Sprintf(`Hi %s,

Your %s membership has been confirmed.

Membership number: GF-%06d
Valid from: %s
Valid until: %s

Show this number at the front desk to check in.

See you at the gym!

- GymFlow Team`, name, planName, subscriptionID, start.Format(dateLayout), end.Format(dateLayout))

	return s.enqueue(ctx, Job{To: to, Name: name, Subject: subject, Body: body, Type: "membership"})
}
