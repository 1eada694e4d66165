package server

import (
	"context"
	"net/http"
	"snaptrade/internal/dto"
	"snaptrade/internal/handler"
	appmiddleware "snaptrade/internal/middleware"
	"snaptrade/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Server struct {
	echo            *echo.Echo
	logger          *zap.Logger
	auth            echo.MiddlewareFunc
	productHandler  *handler.ProductHandler
	checkoutHandler *handler.CheckoutHandler
	uploadHandler   *handler.UploadHandler
}

func NewServer(
	productService service.ProductService,
	checkoutService service.CheckoutService,
	assetService service.AssetService,
	jwtSecret string,
	logger *zap.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:            e,
		logger:          logger,
		auth:            appmiddleware.AuthMiddleware(jwtSecret),
		productHandler:  handler.NewProductHandler(productService, logger),
		checkoutHandler: handler.NewCheckoutHandler(checkoutService, logger),
		uploadHandler:   handler.NewUploadHandler(assetService, logger),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	api.GET("/variant-kinds", s.uploadHandler.VariantKinds)
	api.GET("/imagekit-auth", s.uploadHandler.UploadAuth, s.auth)

	// -------- products --------
	products := api.Group("/products")
	products.GET("", s.productHandler.ListProducts)
	products.POST("/list", s.productHandler.CreateProduct, s.auth)
	products.GET("/:id", s.productHandler.GetProduct)
	products.PATCH("/:id", s.productHandler.UpdateProduct, s.auth)
	products.DELETE("/:id", s.productHandler.DeleteProduct, s.auth)

	// -------- orders --------
	orders := api.Group("/orders")
	orders.POST("/place", s.checkoutHandler.PlaceOrder, s.auth)
	orders.GET("/:id", s.checkoutHandler.GetOrder, s.auth)

	// -------- gateway callbacks --------
	api.POST("/webhooks/payment", s.checkoutHandler.PaymentWebhook)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// errorHandler keeps the response envelope for errors raised by echo itself,
// such as unknown routes and bodies over the size limit.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "something went wrong, please try again"
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		} else {
			logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}

		if err := c.JSON(code, dto.Response{
			Success:    false,
			StatusCode: code,
			Message:    message,
		}); err != nil {
			logger.Error("write error response", zap.Error(err))
		}
	}
}
