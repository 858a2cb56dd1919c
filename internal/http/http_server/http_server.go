package http_server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auctionlotgo/internal/http/auctionhandler"
	"auctionlotgo/internal/http/wallethandler"
	"auctionlotgo/internal/services/auction"
	"auctionlotgo/internal/wallet"
)

type httpServer struct {
	listenPort     uint16
	srv            http.Server
	ln             net.Listener
	auctionService auction.IAuctionService
	bidService     auctionhandler.BidSubmitter
	ledger         *wallet.Ledger
	ctx            context.Context
}

func NewHttpServer(ctx context.Context, listenPort uint16, auctionService auction.IAuctionService, bidService auctionhandler.BidSubmitter, ledger *wallet.Ledger) *httpServer {
	return &httpServer{
		listenPort:     listenPort,
		auctionService: auctionService,
		bidService:     bidService,
		ledger:         ledger,
		ctx:            ctx,
	}
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	routerEngine := gin.New()
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// REST API
	ah := auctionhandler.New(h.auctionService, h.bidService)
	ah.Register(routerEngine)
	wh := wallethandler.New(h.ledger)
	wh.Register(routerEngine)

	h.srv = http.Server{
		Handler: routerEngine,
	}

	return h.srv.Serve(h.ln)
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in-flight requests to finish.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err // e.g. active conns didn't finish in time
	}

	if ctx.Err() == context.DeadlineExceeded {
		zap.L().Error("http_dispose", zap.Error(errors.New("shutdown timed out")))
		log.Println("shutdown timeout (10 s)")
	}

	return nil
}
