package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/models"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

type orderFixture struct {
	db       *gorm.DB
	stall    models.Stall
	burger   models.MenuItem
	fries    models.MenuItem
	cardUser models.Customer
	webUser  models.Customer
	cashier  models.User
}

func newOrderFixture(t *testing.T) *orderFixture {
	db := setupOrderTestDB(t)

	cashier := models.User{
		Name:     "Counter Cashier",
		Phone:    "01700000010",
		Password: "x",
		Role:     models.RoleStallCashier,
	}
	require.NoError(t, db.Create(&cashier).Error)

	stall := models.Stall{
		MotherStall:        "Burger Hut",
		MinimumOrderAmount: decimal.NewFromInt(50),
	}
	require.NoError(t, db.Create(&stall).Error)

	burger := models.MenuItem{
		StallID:      stall.ID,
		FoodName:     "Burger",
		FoodPrice:    decimal.NewFromInt(10),
		IsAvailable:  true,
		CurrentStock: 5,
	}
	fries := models.MenuItem{
		StallID:      stall.ID,
		FoodName:     "Fries",
		FoodPrice:    decimal.NewFromInt(5),
		IsAvailable:  true,
		CurrentStock: 20,
	}
	require.NoError(t, db.Create(&burger).Error)
	require.NoError(t, db.Create(&fries).Error)

	cardUID := "04A1B2C3"
	cardUser := models.Customer{
		Name:         "Card Holder",
		Phone:        "01800000001",
		CardUID:      &cardUID,
		Balance:      decimal.NewFromInt(100),
		CustomerType: models.CustomerTypeNFC,
	}
	require.NoError(t, db.Create(&cardUser).Error)

	webUser := models.Customer{
		Name:            "Web Shopper",
		Phone:           "01800000002",
		CustomerType:    models.CustomerTypeOnline,
		IsPhoneVerified: true,
	}
	require.NoError(t, db.Create(&webUser).Error)

	return &orderFixture{
		db:       db,
		stall:    stall,
		burger:   burger,
		fries:    fries,
		cardUser: cardUser,
		webUser:  webUser,
		cashier:  cashier,
	}
}

func (f *orderFixture) reloadStock(t *testing.T, id uint) int {
	var item models.MenuItem
	require.NoError(t, f.db.First(&item, id).Error)
	return item.CurrentStock
}

func (f *orderFixture) reloadBalance(t *testing.T, id uint) decimal.Decimal {
	var customer models.Customer
	require.NoError(t, f.db.First(&customer, id).Error)
	return customer.Balance
}

func TestCreateOrderNFC(t *testing.T) {
	t.Run("debits balance and decrements stock atomically", func(t *testing.T) {
		f := newOrderFixture(t)

		result, err := CreateOrder(f.db, CreateOrderInput{
			CustomerID:      f.cardUser.ID,
			StallID:         f.stall.ID,
			OrderType:       models.OrderTypeNFC,
			PaymentMethod:   models.PaymentMethodNFC,
			OrderServedByID: &f.cashier.ID,
			TotalAmount:     decimal.NewFromInt(30),
			Items: []OrderItemInput{
				{FoodName: "Burger", FoodPrice: decimal.NewFromInt(10), Quantity: 2},
				{FoodName: "Fries", FoodPrice: decimal.NewFromInt(5), Quantity: 2},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, models.OrderStatusConfirmed, result.Order.OrderStatus)
		assert.Equal(t, models.PaymentStatusPaid, result.Order.PaymentStatus)
		assert.True(t, result.Customer.Balance.Equal(decimal.NewFromInt(70)),
			"expected balance 70, got %s", result.Customer.Balance)
		assert.Equal(t, 3, f.reloadStock(t, f.burger.ID))
		assert.Equal(t, 18, f.reloadStock(t, f.fries.ID))

		var history []models.OrderHistoryEntry
		require.NoError(t, f.db.Where("customer_id = ?", f.cardUser.ID).Find(&history).Error)
		require.Len(t, history, 1)
		assert.Equal(t, result.Order.ID, history[0].OrderID)
		assert.True(t, history[0].TotalAmount.Equal(decimal.NewFromInt(30)))
	})

	t.Run("rejects the whole order when one item is short", func(t *testing.T) {
		f := newOrderFixture(t)

		_, err := CreateOrder(f.db, CreateOrderInput{
			CustomerID:    f.cardUser.ID,
			StallID:       f.stall.ID,
			OrderType:     models.OrderTypeNFC,
			PaymentMethod: models.PaymentMethodNFC,
			TotalAmount:   decimal.NewFromInt(70),
			Items: []OrderItemInput{
				{FoodName: "Fries", FoodPrice: decimal.NewFromInt(5), Quantity: 2},
				{FoodName: "Burger", FoodPrice: decimal.NewFromInt(10), Quantity: 6},
			},
		})

		var business *BusinessError
		require.ErrorAs(t, err, &business)
		assert.Equal(t, "INSUFFICIENT_STOCK", business.Code)
		assert.Equal(t, "Insufficient stock of Burger", business.Message)

		// Nothing was applied
		assert.Equal(t, 5, f.reloadStock(t, f.burger.ID))
		assert.Equal(t, 20, f.reloadStock(t, f.fries.ID))
		assert.True(t, f.reloadBalance(t, f.cardUser.ID).Equal(decimal.NewFromInt(100)))

		var count int64
		f.db.Model(&models.Order{}).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("rejects an item that is not on the menu", func(t *testing.T) {
		f := newOrderFixture(t)

		_, err := CreateOrder(f.db, CreateOrderInput{
			CustomerID:    f.cardUser.ID,
			StallID:       f.stall.ID,
			OrderType:     models.OrderTypeNFC,
			PaymentMethod: models.PaymentMethodNFC,
			TotalAmount:   decimal.NewFromInt(10),
			Items: []OrderItemInput{
				{FoodName: "Pizza", FoodPrice: decimal.NewFromInt(10), Quantity: 1},
			},
		})

		var business *BusinessError
		require.ErrorAs(t, err, &business)
		assert.Equal(t, "INSUFFICIENT_STOCK", business.Code)
	})

	t.Run("rejects when card balance cannot cover the total", func(t *testing.T) {
		f := newOrderFixture(t)

		_, err := CreateOrder(f.db, CreateOrderInput{
			CustomerID:    f.cardUser.ID,
			StallID:       f.stall.ID,
			OrderType:     models.OrderTypeNFC,
			PaymentMethod: models.PaymentMethodNFC,
			TotalAmount:   decimal.NewFromInt(150),
			Items: []OrderItemInput{
				{FoodName: "Fries", FoodPrice: decimal.NewFromInt(5), Quantity: 2},
			},
		})

		var business *BusinessError
		require.ErrorAs(t, err, &business)
		assert.Equal(t, "INSUFFICIENT_FUNDS", business.Code)
		assert.Equal(t, "Insufficient funds in NFC card", business.Message)
		assert.Equal(t, 20, f.reloadStock(t, f.fries.ID))
	})

	t.Run("returns typed not-found errors", func(t *testing.T) {
		f := newOrderFixture(t)

		_, err := CreateOrder(f.db, CreateOrderInput{CustomerID: 9999, StallID: f.stall.ID})
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "CUSTOMER_NOT_FOUND", notFound.Code)

		_, err = CreateOrder(f.db, CreateOrderInput{CustomerID: f.cardUser.ID, StallID: 9999})
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "STALL_NOT_FOUND", notFound.Code)
	})
}

func TestCreateOrderOnline(t *testing.T) {
	t.Run("enforces the stall minimum for online orders", func(t *testing.T) {
		f := newOrderFixture(t)

		_, err := CreateOrder(f.db, CreateOrderInput{
			CustomerID:    f.webUser.ID,
			StallID:       f.stall.ID,
			OrderType:     models.OrderTypeOnline,
			PaymentMethod: models.PaymentMethodCOD,
			TotalAmount:   decimal.NewFromInt(40),
			Items: []OrderItemInput{
				{FoodName: "Burger", FoodPrice: decimal.NewFromInt(10), Quantity: 4},
			},
		})

		var business *BusinessError
		require.ErrorAs(t, err, &business)
		assert.Equal(t, "BELOW_MINIMUM_ORDER", business.Code)
		assert.Equal(t, "Minimum order amount is 50.00", business.Message)
	})

	t.Run("a total exactly at the minimum is accepted", func(t *testing.T) {
		f := newOrderFixture(t)

		result, err := CreateOrder(f.db, CreateOrderInput{
			CustomerID:    f.webUser.ID,
			StallID:       f.stall.ID,
			OrderType:     models.OrderTypeOnline,
			PaymentMethod: models.PaymentMethodCOD,
			TotalAmount:   decimal.NewFromInt(50),
			DeliveryFee:   decimal.NewFromInt(5),
			Items: []OrderItemInput{
				{FoodName: "Burger", FoodPrice: decimal.NewFromInt(10), Quantity: 5},
			},
			DeliveryStreet: "12 Lake Road",
			DeliveryArea:   "Banani",
			DeliveryCity:   "Dhaka",
		})
		require.NoError(t, err)

		// COD orders start PENDING/PENDING and carry the delivery fee
		assert.Equal(t, models.OrderStatusPending, result.Order.OrderStatus)
		assert.Equal(t, models.PaymentStatusPending, result.Order.PaymentStatus)
		assert.True(t, result.Order.TotalAmount.Equal(decimal.NewFromInt(55)),
			"expected total 55 with delivery fee, got %s", result.Order.TotalAmount)
		require.NotNil(t, result.Order.DeliveryStreet)
		assert.Equal(t, "12 Lake Road", *result.Order.DeliveryStreet)
		assert.Equal(t, 0, f.reloadStock(t, f.burger.ID))
	})

	t.Run("the minimum does not apply to counter orders", func(t *testing.T) {
		f := newOrderFixture(t)

		_, err := CreateOrder(f.db, CreateOrderInput{
			CustomerID:    f.cardUser.ID,
			StallID:       f.stall.ID,
			OrderType:     models.OrderTypeNFC,
			PaymentMethod: models.PaymentMethodNFC,
			TotalAmount:   decimal.NewFromInt(5),
			Items: []OrderItemInput{
				{FoodName: "Fries", FoodPrice: decimal.NewFromInt(5), Quantity: 1},
			},
		})
		assert.NoError(t, err)
	})

	t.Run("gateway orders get a pending payment record", func(t *testing.T) {
		f := newOrderFixture(t)

		result, err := CreateOrder(f.db, CreateOrderInput{
			CustomerID:     f.webUser.ID,
			StallID:        f.stall.ID,
			OrderType:      models.OrderTypeOnline,
			PaymentMethod:  models.PaymentMethodSSLCommerz,
			TotalAmount:    decimal.NewFromInt(60),
			Items:          []OrderItemInput{{FoodName: "Fries", FoodPrice: decimal.NewFromInt(5), Quantity: 12}},
			DeliveryStreet: "12 Lake Road",
			DeliveryArea:   "Banani",
			DeliveryCity:   "Dhaka",
		})
		require.NoError(t, err)

		assert.Equal(t, models.OrderStatusConfirmed, result.Order.OrderStatus)
		assert.Equal(t, models.PaymentStatusPending, result.Order.PaymentStatus)
		require.NotNil(t, result.Order.GatewayPayment)
		assert.Equal(t, models.GatewayStatusPending, result.Order.GatewayPayment.Status)
		assert.Nil(t, result.Order.GatewayPayment.TransactionID)
	})
}

func TestAttachTransactionID(t *testing.T) {
	f := newOrderFixture(t)

	result, err := CreateOrder(f.db, CreateOrderInput{
		CustomerID:     f.webUser.ID,
		StallID:        f.stall.ID,
		OrderType:      models.OrderTypeOnline,
		PaymentMethod:  models.PaymentMethodSSLCommerz,
		TotalAmount:    decimal.NewFromInt(60),
		Items:          []OrderItemInput{{FoodName: "Fries", FoodPrice: decimal.NewFromInt(5), Quantity: 12}},
		DeliveryStreet: "12 Lake Road",
		DeliveryArea:   "Banani",
		DeliveryCity:   "Dhaka",
	})
	require.NoError(t, err)

	require.NoError(t, AttachTransactionID(f.db, result.Order.ID, "abc123def456"))

	order, err := FindOrderByTransactionID(f.db, "abc123def456")
	require.NoError(t, err)
	assert.Equal(t, result.Order.ID, order.ID)

	// An order without a gateway record cannot take a transaction id
	assert.Error(t, AttachTransactionID(f.db, 9999, "deadbeef"))

	// Unknown or empty transaction ids resolve to nothing
	var notFound *NotFoundError
	_, err = FindOrderByTransactionID(f.db, "missing")
	require.ErrorAs(t, err, &notFound)
	_, err = FindOrderByTransactionID(f.db, "")
	require.ErrorAs(t, err, &notFound)
}

func TestUpdateOrderStatus(t *testing.T) {
	placeCODOrder := func(t *testing.T, f *orderFixture) *models.Order {
		result, err := CreateOrder(f.db, CreateOrderInput{
			CustomerID:     f.webUser.ID,
			StallID:        f.stall.ID,
			OrderType:      models.OrderTypeOnline,
			PaymentMethod:  models.PaymentMethodCOD,
			TotalAmount:    decimal.NewFromInt(60),
			Items:          []OrderItemInput{{FoodName: "Fries", FoodPrice: decimal.NewFromInt(5), Quantity: 12}},
			DeliveryStreet: "12 Lake Road",
			DeliveryArea:   "Banani",
			DeliveryCity:   "Dhaka",
		})
		require.NoError(t, err)
		return result.Order
	}

	t.Run("walks an order through preparation", func(t *testing.T) {
		f := newOrderFixture(t)
		order := placeCODOrder(t, f)

		updated, err := UpdateOrderStatus(f.db, order.ID, models.OrderStatusPreparing)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPreparing, updated.OrderStatus)
		assert.Equal(t, models.PaymentStatusPending, updated.PaymentStatus)
	})

	t.Run("delivering a COD order settles its payment", func(t *testing.T) {
		f := newOrderFixture(t)
		order := placeCODOrder(t, f)

		updated, err := UpdateOrderStatus(f.db, order.ID, models.OrderStatusDelivered)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusDelivered, updated.OrderStatus)
		assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)
		assert.NotNil(t, updated.ActualDeliveryTime)
	})

	t.Run("terminal orders refuse further transitions", func(t *testing.T) {
		f := newOrderFixture(t)
		order := placeCODOrder(t, f)

		_, err := UpdateOrderStatus(f.db, order.ID, models.OrderStatusDelivered)
		require.NoError(t, err)

		_, err = UpdateOrderStatus(f.db, order.ID, models.OrderStatusPreparing)
		var business *BusinessError
		require.ErrorAs(t, err, &business)
		assert.Equal(t, "INVALID_STATUS_TRANSITION", business.Code)
		assert.Equal(t, "Order is already DELIVERED", business.Message)
	})

	t.Run("rejects unknown statuses and orders", func(t *testing.T) {
		f := newOrderFixture(t)
		order := placeCODOrder(t, f)

		_, err := UpdateOrderStatus(f.db, order.ID, "SHIPPED")
		var business *BusinessError
		require.ErrorAs(t, err, &business)
		assert.Equal(t, "INVALID_ORDER_STATUS", business.Code)

		_, err = UpdateOrderStatus(f.db, 9999, models.OrderStatusPreparing)
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "ORDER_NOT_FOUND", notFound.Code)
	})
}

func TestGatewayReconciliation(t *testing.T) {
	placeGatewayOrder := func(t *testing.T, f *orderFixture, tranID string) *models.Order {
		result, err := CreateOrder(f.db, CreateOrderInput{
			CustomerID:     f.webUser.ID,
			StallID:        f.stall.ID,
			OrderType:      models.OrderTypeOnline,
			PaymentMethod:  models.PaymentMethodSSLCommerz,
			TotalAmount:    decimal.NewFromInt(60),
			Items:          []OrderItemInput{{FoodName: "Fries", FoodPrice: decimal.NewFromInt(5), Quantity: 12}},
			DeliveryStreet: "12 Lake Road",
			DeliveryArea:   "Banani",
			DeliveryCity:   "Dhaka",
		})
		require.NoError(t, err)
		require.NoError(t, AttachTransactionID(f.db, result.Order.ID, tranID))
		return result.Order
	}

	t.Run("success marks the order paid with gateway details", func(t *testing.T) {
		f := newOrderFixture(t)
		order := placeGatewayOrder(t, f, "tran-success-1")

		updated, err := ApplyGatewaySuccess(f.db, "tran-success-1", &ValidatedPayment{
			Status:            "VALID",
			TransactionID:     "tran-success-1",
			Amount:            "60.00",
			CardType:          "VISA-Dutch Bangla",
			BankTransactionID: "BANK123",
			CardIssuer:        "DBBL",
			CardBrand:         "VISA",
			Currency:          "BDT",
		})
		require.NoError(t, err)

		assert.Equal(t, order.ID, updated.ID)
		assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)
		assert.Equal(t, models.OrderStatusConfirmed, updated.OrderStatus)
		assert.Equal(t, models.GatewayStatusValidated, updated.GatewayPayment.Status)
		require.NotNil(t, updated.GatewayPayment.Amount)
		assert.True(t, updated.GatewayPayment.Amount.Equal(decimal.NewFromInt(60)))
		require.NotNil(t, updated.GatewayPayment.BankTransactionID)
		assert.Equal(t, "BANK123", *updated.GatewayPayment.BankTransactionID)
		assert.NotNil(t, updated.GatewayPayment.ValidatedOn)

		// Both rows settled in the same commit
		var persisted models.Order
		require.NoError(t, f.db.Preload("GatewayPayment").First(&persisted, order.ID).Error)
		assert.Equal(t, models.PaymentStatusPaid, persisted.PaymentStatus)
		assert.Equal(t, models.OrderStatusConfirmed, persisted.OrderStatus)
		assert.Equal(t, models.GatewayStatusValidated, persisted.GatewayPayment.Status)
	})

	t.Run("duplicate success callbacks land in the same state", func(t *testing.T) {
		f := newOrderFixture(t)
		placeGatewayOrder(t, f, "tran-dup")

		payload := &ValidatedPayment{Status: "VALID", TransactionID: "tran-dup", Amount: "60.00"}
		first, err := ApplyGatewaySuccess(f.db, "tran-dup", payload)
		require.NoError(t, err)
		second, err := ApplyGatewaySuccess(f.db, "tran-dup", payload)
		require.NoError(t, err)

		assert.Equal(t, first.PaymentStatus, second.PaymentStatus)
		assert.Equal(t, first.GatewayPayment.Status, second.GatewayPayment.Status)

		var payments []models.GatewayPayment
		require.NoError(t, f.db.Find(&payments).Error)
		assert.Len(t, payments, 1)
	})

	t.Run("failure and cancellation record distinct gateway states", func(t *testing.T) {
		f := newOrderFixture(t)
		placeGatewayOrder(t, f, "tran-fail")

		failed, err := ApplyGatewayFailure(f.db, GatewayCallback{TransactionID: "tran-fail", Amount: "60.00"}, false)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusFailed, failed.PaymentStatus)
		assert.Equal(t, models.GatewayStatusFailed, failed.GatewayPayment.Status)

		var persisted models.Order
		require.NoError(t, f.db.Preload("GatewayPayment").First(&persisted, failed.ID).Error)
		assert.Equal(t, models.PaymentStatusFailed, persisted.PaymentStatus)
		assert.Equal(t, models.GatewayStatusFailed, persisted.GatewayPayment.Status)

		f2 := newOrderFixture(t)
		placeGatewayOrder(t, f2, "tran-cancel")
		cancelled, err := ApplyGatewayFailure(f2.db, GatewayCallback{TransactionID: "tran-cancel"}, true)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusFailed, cancelled.PaymentStatus)
		assert.Equal(t, models.GatewayStatusCancelled, cancelled.GatewayPayment.Status)
	})

	t.Run("callbacks for unknown transactions are rejected", func(t *testing.T) {
		f := newOrderFixture(t)

		var notFound *NotFoundError
		_, err := ApplyGatewaySuccess(f.db, "no-such-tran", &ValidatedPayment{Status: "VALID"})
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "ORDER_NOT_FOUND", notFound.Code)

		_, err = ApplyGatewayFailure(f.db, GatewayCallback{TransactionID: "no-such-tran"}, false)
		require.ErrorAs(t, err, &notFound)
	})
}
