package reply

// 固定回覆文字
const (
	MsgAskQuantity     = "請問想做幾道菜、幾道湯呢？例如：「三菜一湯」或「2道日式料理」。"
	MsgUploadFirst     = "請先上傳一張食材照片，我會幫你辨識食材喔！"
	MsgUploadNewImage  = "請上傳新的食材照片。"
	MsgNoIngredients   = "無法辨識圖片中的食材，請換一張照片試試。"
	MsgGeneratingMore  = "好的，正在為你準備另一道食譜，請稍候…"
	MsgFavoriteSaved   = "已加入最愛！"
	MsgGenericApology  = "抱歉，發生了一些問題，請稍後再試。"
	MsgCarouselAltText = "為你推薦的食譜"
)

// IngredientsFound 辨識結果訊息
func IngredientsFound(ingredients string) string {
	return "辨識到的食材：" + ingredients
}
