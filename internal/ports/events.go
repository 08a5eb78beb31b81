package ports

import "cardmint-shopify-app/internal/domain"

// OrderRunPublisher broadcasts finished order runs to interested listeners
type OrderRunPublisher interface {
	PublishOrderRun(run *domain.OrderRun, orderName string)
}
