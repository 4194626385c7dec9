package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"wealth-tracker-go/internal/models"
)

func TestSearchFundCode(t *testing.T) {
	t.Run("FullNameMatch", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/FundSearch/api/FundSearchAPI.ashx", r.URL.Path)
			fmt.Fprint(w, `{"Datas":[{"CODE":"012345","NAME":"广发科创50联接A","CATEGORY":700}]}`)
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		client := newTestClient(server.URL)

		code, err := client.SearchFundCode(context.Background(), "广发科创50联接A")

		assert.NoError(t, err)
		assert.Equal(t, "012345", code)
	})

	t.Run("StrippedSuffixMatch", func(t *testing.T) {
		// Full name finds nothing; the key minus its share-class suffix does.
		var keys []string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.URL.Query().Get("key")
			keys = append(keys, key)
			if key == "广发科创50联" {
				fmt.Fprint(w, `{"Datas":[{"CODE":"012345","NAME":"广发科创50联接A","CATEGORY":700}]}`)
				return
			}
			fmt.Fprint(w, `{"Datas":[]}`)
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		client := newTestClient(server.URL)

		code, err := client.SearchFundCode(context.Background(), "广发科创50联接A")

		assert.NoError(t, err)
		assert.Equal(t, "012345", code)
		assert.Equal(t, []string{"广发科创50联接A", "广发科创50联"}, keys)
	})

	t.Run("FiltersCategoryAndCodeShape", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Wealth-management product and a short code come first; the
			// six-digit fund must win.
			fmt.Fprint(w, `{"Datas":[
				{"CODE":"999999","NAME":"某高端理财","CATEGORY":750},
				{"CODE":"12345","NAME":"坏代码","CATEGORY":700},
				{"CODE":"005875","NAME":"测试混合C","CATEGORY":700}
			]}`)
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		client := newTestClient(server.URL)

		code, err := client.SearchFundCode(context.Background(), "测试混合C")

		assert.NoError(t, err)
		assert.Equal(t, "005875", code)
	})

	t.Run("NoMatch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"Datas":[]}`)
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		_, err := client.SearchFundCode(context.Background(), "不存在的基金名称XY")

		assert.ErrorIs(t, err, ErrUnresolved)
	})

	t.Run("EmptyName", func(t *testing.T) {
		client := newTestClient("http://unused")

		_, err := client.SearchFundCode(context.Background(), "")

		assert.ErrorIs(t, err, ErrUnresolved)
	})
}

func TestAssetName(t *testing.T) {
	t.Run("StockShanghaiPrefix", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "list=sh600519")
			fmt.Fprint(w, `var hq_str_sh600519="贵州茅台,1700.00,1698.00,1712.50";`)
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		client := newTestClient(server.URL)

		name, err := client.AssetName(context.Background(), "600519", models.AssetTypeStock)

		assert.NoError(t, err)
		assert.Equal(t, "贵州茅台", name)
	})

	t.Run("ExchangeTradedFund", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "list=sz159852")
			fmt.Fprint(w, `var hq_str_sz159852="机床ETF,0.543,0.540";`)
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		client := newTestClient(server.URL)

		name, err := client.AssetName(context.Background(), "159852", models.AssetTypeFund)

		assert.NoError(t, err)
		assert.Equal(t, "机床ETF", name)
	})

	t.Run("OTCFund", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "list=f_013810")
			fmt.Fprint(w, `var hq_str_f_013810="景顺长城中证500指数增强A,1.2345";`)
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		client := newTestClient(server.URL)

		name, err := client.AssetName(context.Background(), "013810", models.AssetTypeFund)

		assert.NoError(t, err)
		assert.Equal(t, "景顺长城中证500指数增强A", name)
	})

	t.Run("Unresolvable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		_, err := client.AssetName(context.Background(), "600519", models.AssetTypeStock)

		assert.ErrorIs(t, err, ErrUnresolved)

		_, err = client.AssetName(context.Background(), "", models.AssetTypeStock)
		assert.ErrorIs(t, err, ErrUnresolved)
	})
}
