package feed

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
)

// TickHandler receives each live observation from the stream.
type TickHandler func(price, closePrice float64, ts time.Time)

// BinanceFeed streams aggregate trades for one symbol into the evaluator.
// The stream is restarted when Binance closes it.
type BinanceFeed struct {
	symbol  string
	handler TickHandler

	mu      sync.Mutex
	stopC   chan struct{}
	quit    chan struct{}
	started bool
}

// NewBinanceFeed creates a feed for the given symbol.
func NewBinanceFeed(symbol string, handler TickHandler) *BinanceFeed {
	return &BinanceFeed{
		symbol:  symbol,
		handler: handler,
		quit:    make(chan struct{}),
	}
}

// Start connects the stream on its own goroutine.
func (f *BinanceFeed) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return
	}
	f.started = true
	go f.run()
}

func (f *BinanceFeed) run() {
	for {
		doneC, stopC, err := binance.WsAggTradeServe(f.symbol, f.onTrade, f.onError)
		if err != nil {
			log.Printf("Failed to connect Binance stream for %s: %v", f.symbol, err)
			select {
			case <-f.quit:
				return
			case <-time.After(5 * time.Second):
				continue
			}
		}

		f.mu.Lock()
		f.stopC = stopC
		f.mu.Unlock()

		log.Printf("Binance aggregate trade stream connected for %s", f.symbol)

		select {
		case <-f.quit:
			close(stopC)
			return
		case <-doneC:
			log.Printf("Binance stream for %s closed, reconnecting", f.symbol)
		}
	}
}

func (f *BinanceFeed) onTrade(event *binance.WsAggTradeEvent) {
	price, err := strconv.ParseFloat(event.Price, 64)
	if err != nil {
		log.Printf("Failed to parse trade price %q: %v", event.Price, err)
		return
	}
	f.handler(price, price, time.UnixMilli(event.Time))
}

func (f *BinanceFeed) onError(err error) {
	log.Printf("Binance stream error for %s: %v", f.symbol, err)
}

// Stop disconnects the stream. Safe to call before Start or twice.
func (f *BinanceFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.quit:
		return
	default:
		close(f.quit)
	}
}
