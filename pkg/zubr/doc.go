/*
Zubr is the client SDK for the Zubr exchange WebSocket API.

# Module
  - client: typed trading and subscription facade over one connection
  - correlation: pending request table and channel registry
  - dispatch: inbound frame routing onto registered callbacks

# Source
  - push channels: instruments, orderbook, lasttrades, orders, orderFills,
    balance, candles
  - rpc replies: placeOrder, replaceOrder, cancelOrder, getCandlesRange

# Produce
  - user callbacks, invoked on the connection read pump

# Sharded
  - none
*/
package zubr
