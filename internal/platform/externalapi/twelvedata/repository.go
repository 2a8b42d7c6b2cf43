package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stock_watchlist/internal/feature/quotes/domain/entity"
	"stock_watchlist/internal/feature/quotes/usecase"
	"stock_watchlist/internal/platform/externalapi/twelvedata/dto"
)

// maxOutputSize はTwelve Dataが1リクエストで返す最大件数です。
const maxOutputSize = 5000

// intervals はアプリ内の時間足表記をTwelve Dataの表記に変換します。
var intervals = map[string]string{
	"1m":  "1min",
	"5m":  "5min",
	"15m": "15min",
	"30m": "30min",
	"45m": "45min",
	"1h":  "1h",
	"2h":  "2h",
	"4h":  "4h",
	"1d":  "1day",
	"1wk": "1week",
	"1mo": "1month",
}

// rangeTradingDays は取得期間をおおよその営業日数に変換します。
var rangeTradingDays = map[string]int{
	"1d":  1,
	"5d":  5,
	"1mo": 22,
	"3mo": 66,
	"6mo": 126,
	"1y":  252,
	"2y":  504,
	"5y":  1260,
	"10y": 2520,
}

// intradayMinutes は1本あたりの分数です（日中足のみ）。
var intradayMinutes = map[string]int{
	"1min": 1, "5min": 5, "15min": 15, "30min": 30, "45min": 45,
	"1h": 60, "2h": 120, "4h": 240,
}

// TwelveDataMarket はTwelve Data外部APIから株価データを取得するMarketRepository実装です。
type TwelveDataMarket struct {
	cfg    Config
	client *http.Client
}

// TwelveDataMarketがMarketRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.MarketRepository = (*TwelveDataMarket)(nil)

// NewTwelveDataMarket は指定された設定とHTTPクライアントでTwelveDataMarketの新しいインスタンスを生成します。
func NewTwelveDataMarket(cfg Config, client *http.Client) *TwelveDataMarket {
	return &TwelveDataMarket{cfg: cfg, client: client}
}

// GetTimeSeries はTwelve Data APIから時系列株価データを取得します。
// status が "error" のレスポンスはエラーにせずそのまま返し、判定は呼び出し側に任せます。
func (t *TwelveDataMarket) GetTimeSeries(ctx context.Context, req entity.Request) (*entity.TimeSeries, error) {
	interval := toInterval(req.Interval)

	q := url.Values{}
	// クエリパラメータを追加
	q.Set("symbol", req.Symbol)
	q.Set("interval", interval)
	if req.StartDate != "" {
		q.Set("start_date", req.StartDate)
	}
	if req.EndDate != "" {
		q.Set("end_date", req.EndDate)
	}
	if req.StartDate == "" || req.EndDate == "" {
		q.Set("outputsize", strconv.Itoa(outputSize(interval, req.Range)))
	}
	q.Set("apikey", t.cfg.TwelveDataAPIKey)

	// URLを生成
	u := fmt.Sprintf("%s/time_series?%s", t.cfg.BaseURL, q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("twelvedata http %d", res.StatusCode)
	}

	// JSONレスポンスをDTOにデコード
	var body dto.TimeSeriesResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode twelvedata response: %w", err)
	}

	out := &entity.TimeSeries{
		Status:   body.Status,
		Message:  body.Message,
		Symbol:   body.Meta.Symbol,
		Interval: req.Interval,
	}
	if out.Symbol == "" {
		out.Symbol = req.Symbol
	}
	if out.IsError() {
		return out, nil
	}

	candles, err := toCandles(body.Values)
	if err != nil {
		return nil, err
	}
	out.Values = candles
	return out, nil
}

// toCandles は文字列で表現されたOHLCVをドメインエンティティに変換します。
func toCandles(values []dto.TimeSeriesValue) ([]entity.Candle, error) {
	candles := make([]entity.Candle, 0, len(values))
	for _, v := range values {
		tm, err := time.Parse("2006-01-02 15:04:05", v.Datetime)
		if err != nil {
			tm, err = time.Parse("2006-01-02", v.Datetime)
			if err != nil {
				return nil, fmt.Errorf("parse time %q: %w", v.Datetime, err)
			}
		}
		o, err := strconv.ParseFloat(v.Open, 64)
		if err != nil {
			return nil, fmt.Errorf("parse open %q: %w", v.Open, err)
		}
		h, err := strconv.ParseFloat(v.High, 64)
		if err != nil {
			return nil, fmt.Errorf("parse high %q: %w", v.High, err)
		}
		l, err := strconv.ParseFloat(v.Low, 64)
		if err != nil {
			return nil, fmt.Errorf("parse low %q: %w", v.Low, err)
		}
		c, err := strconv.ParseFloat(v.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("parse close %q: %w", v.Close, err)
		}
		// 指数や為替は出来高を返さない
		var vol int64
		if v.Volume != "" {
			vol, err = strconv.ParseInt(v.Volume, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse volume %q: %w", v.Volume, err)
			}
		}

		candles = append(candles, entity.Candle{
			Time:   tm,
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: vol,
		})
	}
	return candles, nil
}

// toInterval はアプリ内の時間足表記をTwelve Dataの表記に変換します。未知の値はそのまま渡します。
func toInterval(interval string) string {
	if v, ok := intervals[strings.ToLower(interval)]; ok {
		return v
	}
	return interval
}

// outputSize は取得期間と時間足から必要な件数を見積もります。
func outputSize(interval, rng string) int {
	if strings.EqualFold(rng, "max") {
		return maxOutputSize
	}
	days, ok := rangeTradingDays[strings.ToLower(rng)]
	if !ok {
		days = rangeTradingDays["1mo"]
	}

	var n int
	switch interval {
	case "1day":
		n = days
	case "1week":
		n = days / 5
	case "1month":
		n = days / 21
	default:
		mins, ok := intradayMinutes[interval]
		if !ok {
			n = days
			break
		}
		// 米国市場の立会時間（390分）を基準にする
		n = days * (390 / mins)
		if 390%mins != 0 {
			n += days
		}
	}

	if n < 1 {
		n = 1
	}
	if n > maxOutputSize {
		n = maxOutputSize
	}
	return n
}
